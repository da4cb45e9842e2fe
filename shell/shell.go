package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/goccy/go-json"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util"
)

/*
The shell is a line-oriented interpreter over a single tree manager. Because
the manager stays open for the whole session, its cache stays warm between
commands, which makes the shell the natural place to watch hits, misses and
evictions happen.
*/

////////////////////////////////////////////////////////////////////////////////

// Prompt is the default prompt.
const Prompt = "lazytree # "

// ErrUsage is returned for malformed commands.
var ErrUsage = errors.New("usage")

// LineReader supplies input lines. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// Shell executes commands against a tree manager.
type Shell struct {
	tmgr   *treemgr.TreeManager
	out    io.Writer
	parser codec.Codec
}

// New returns a shell writing its output to out.
func New(tmgr *treemgr.TreeManager, out io.Writer) *Shell {
	return &Shell{tmgr: tmgr, out: out, parser: codec.NewJSON()}
}

// Run reads and executes lines until the input is exhausted or a quit command
// is read. Command errors are printed and do not end the session.
func (s *Shell) Run(ctx context.Context, r LineReader) error {
	for {
		line, err := r.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read line: %w", err)
		}
		quit, err := s.Execute(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, "ERROR: "+err.Error())
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single command line. It reports whether the line asked the
// shell to exit.
func (s *Shell) Execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case "":
		return false, nil
	case "quit", "exit", "\\q":
		return true, nil
	case "help", "\\h":
		text, ok := help[rest]
		if !ok {
			return false, fmt.Errorf("no help for %q", rest)
		}
		fmt.Fprintln(s.out, text)
		return false, nil
	case "add":
		return false, s.add(ctx, rest)
	case "get":
		return false, s.get(ctx, rest)
	case "tree":
		return false, s.tree(ctx, rest)
	case "cached":
		if rest == "" {
			ids := util.Map(nodestore.NodeID.String, s.tmgr.CachedIDs())
			fmt.Fprintf(s.out, "[%s]\n", strings.Join(ids, " "))
			return false, nil
		}
		id, err := nodestore.ParseNodeID(rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, s.tmgr.IsCached(id))
		return false, nil
	case "stats":
		stats := s.tmgr.Stats()
		fmt.Fprintf(s.out, "hits: %d misses: %d evictions: %d resident: %d/%d\n",
			stats.Hits, stats.Misses, stats.Evictions, stats.Resident, stats.Capacity)
		return false, nil
	case "reset":
		s.tmgr.ResetCache()
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized command: %s", command)
	}
}

// nextToken splits off the first token of s, which may be a double-quoted Go
// string literal.
func nextToken(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted string: %w", err)
		}
		token, err := strconv.Unquote(quoted)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted string: %w", err)
		}
		return token, strings.TrimSpace(s[len(quoted):]), nil
	}
	token, rest, _ := strings.Cut(s, " ")
	return token, strings.TrimSpace(rest), nil
}

func (s *Shell) add(ctx context.Context, args string) error {
	name, args, err := nextToken(args)
	if err != nil {
		return err
	}
	parentArg, data, err := nextToken(args)
	if err != nil {
		return err
	}
	if parentArg == "" {
		return fmt.Errorf("%w: add NAME PARENT|- [JSON]", ErrUsage)
	}
	var parent *nodestore.NodeID
	if parentArg != "-" {
		id, err := nodestore.ParseNodeID(parentArg)
		if err != nil {
			return err
		}
		parent = id.Ptr()
	}
	var value any
	if data != "" {
		value, err = s.parser.Decode([]byte(data))
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
	}
	id, err := s.tmgr.AddNode(ctx, name, value, parent)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "added node %d\n", id)
	return nil
}

func (s *Shell) get(ctx context.Context, args string) error {
	id, err := nodestore.ParseNodeID(args)
	if err != nil {
		return fmt.Errorf("%w: get ID: %w", ErrUsage, err)
	}
	value, err := s.tmgr.GetNodeData(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to format value: %w", err)
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

func (s *Shell) tree(ctx context.Context, args string) error {
	var root *nodestore.NodeID
	if args != "" {
		id, err := nodestore.ParseNodeID(args)
		if err != nil {
			return fmt.Errorf("%w: tree [ID]: %w", ErrUsage, err)
		}
		if _, err := s.tmgr.Node(ctx, id); err != nil {
			return err
		}
		root = id.Ptr()
	}
	return s.tmgr.PrintTree(ctx, s.out, root, 0)
}

var help = map[string]string{
	"": `Commands:
  add NAME PARENT|- [JSON]  create a node under PARENT, or a root with "-"
  get ID                    print the node's data, loading it if not cached
  tree [ID]                 print the tree under ID, or every tree
  cached [ID]               report whether the node's data is cached, or list
                            cached ids, most recently used first
  stats                     print cache statistics
  reset                     empty the cache
  help [add]                print help
  quit                      leave the shell`,

	"add": `add NAME PARENT|- [JSON]

NAME may be double-quoted to include spaces, and "" is a valid name. PARENT is the id of an existing
node, or "-" to create a root. JSON is any JSON value and defaults to null.

  add Root - {"value": 1}
  add "Child 1" 1 {"value": 10}`,
}
