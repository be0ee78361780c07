package requests

// RequestType tags every UI request sent on the result channel
type RequestType string

const (
	QueryRequestType RequestType = "QueryRequest"
	TableRequestType RequestType = "TableRequest"
)

// UIRequestDTO is the JSON envelope shared by all UI requests
type UIRequestDTO struct {
	RequestType RequestType `json:"requestType"`
}

// QueryRequestDTO asks the front end to execute a query
type QueryRequestDTO struct {
	UIRequestDTO
	Query   string `json:"query"`
	Analyze bool   `json:"analyze"`
}

// TableRequestDTO asks the front end for the content of a table, e.g. "public.emps"
type TableRequestDTO struct {
	UIRequestDTO
	TableID string `json:"tableId"`
}

func NewQueryRequest(query string) QueryRequestDTO {
	return QueryRequestDTO{
		UIRequestDTO: UIRequestDTO{RequestType: QueryRequestType},
		Query:        query,
	}
}

func NewTableRequest(tableID string) TableRequestDTO {
	return TableRequestDTO{
		UIRequestDTO: UIRequestDTO{RequestType: TableRequestType},
		TableID:      tableID,
	}
}
