package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/internal/util"
)

type CommandKind int

const (
	CommandHelp CommandKind = iota
	CommandCommit
	CommandReset
	CommandQuery
	CommandTable
)

// Command is one parsed console line
type Command struct {
	Kind CommandKind
	Arg  string // query text or table id
}

const Prompt = "Enter a query or type 'help' to find more options:"

const HelpText = `Options:
'commit': Commit all changes in the file system.
'reset': Clear the file system.
schema.table: Enter a table identifier (e.g. public.depts) to select all rows from that table and to be able to commit changes in the file system.
SELECT query: Enter any SELECT query. The result will be mapped to the file system.
`

var queryPrefixes = []string{"select", "delete", "update"}

// ParseCommand classifies a console line. Keywords are case insensitive;
// anything that is neither a keyword nor a query is taken as a table id.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, false
	}
	lower := strings.ToLower(line)
	switch lower {
	case "help":
		return Command{Kind: CommandHelp}, true
	case "commit":
		return Command{Kind: CommandCommit}, true
	case "reset":
		return Command{Kind: CommandReset}, true
	}
	for _, p := range queryPrefixes {
		if strings.HasPrefix(lower, p) {
			return Command{Kind: CommandQuery, Arg: line}, true
		}
	}
	return Command{Kind: CommandTable, Arg: line}, true
}

// ResultMessage is the console line reporting a delivered result
func ResultMessage(res *resultfs.Result) string {
	switch {
	case res == nil:
		return "The query returned nothing"
	case res.Error != "":
		return "The query failed: " + res.Error
	case res.Rows == nil && (res.Info != nil || res.AffectedRows != nil):
		return fmt.Sprintf("The query was successful and affected %d rows", res.Affected())
	default:
		return fmt.Sprintf("Fetched %d rows", len(res.Rows))
	}
}

// CommitMessage is the console line reporting a commit
func CommitMessage(out resultfs.CommitOutcome, err error) string {
	switch {
	case err != nil:
		return "The commit failed: " + err.Error()
	case out.AffectedRows == 1:
		return "The commit was successful. 1 row was affected."
	default:
		return fmt.Sprintf("The commit was successful. %d rows were affected.", out.AffectedRows)
	}
}

// Console reads commands line by line and runs them against a session
type Console struct {
	sess *Session
	in   io.Reader
	out  io.Writer
}

func NewConsole(sess *Session, in io.Reader, out io.Writer) *Console {
	return &Console{sess: sess, in: in, out: out}
}

// PrintResult reports a delivered result
func (c *Console) PrintResult(res *resultfs.Result) {
	fmt.Fprintln(c.out, ResultMessage(res))
}

// Exec runs one command
func (c *Console) Exec(ctx context.Context, cmd Command) {
	logger := util.GetLogger("Console.Exec")

	switch cmd.Kind {
	case CommandHelp:
		fmt.Fprint(c.out, HelpText)
	case CommandCommit:
		out, err := c.sess.Commit(ctx)
		fmt.Fprintln(c.out, CommitMessage(out, err))
	case CommandReset:
		c.sess.FS().Reset()
	case CommandQuery:
		if err := c.sess.SubmitQuery(ctx, cmd.Arg); err != nil {
			logger.Error().Err(err).Str("query", cmd.Arg).Msg("Could not submit query")
			fmt.Fprintln(c.out, "Could not submit the query: "+err.Error())
		}
	case CommandTable:
		if err := c.sess.SubmitTable(ctx, cmd.Arg); err != nil {
			logger.Error().Err(err).Str("table", cmd.Arg).Msg("Could not submit table request")
			fmt.Fprintln(c.out, "Could not submit the table request: "+err.Error())
		}
	}
}

// Run prompts and executes commands until input ends or ctx is done
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprintln(c.out, Prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("could not read line: %w", err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if cmd, ok := ParseCommand(scanner.Text()); ok {
			c.Exec(ctx, cmd)
		}
	}
}
