// Command shelf reads and writes a shelf store from the shell.
//
// Usage:
//
//	shelf create [flags] '<json document>'
//	shelf read   [flags] [--where k=v]... [--order "f DESC, g"] [--offset N] [--limit N]
//	shelf update [flags] --where k=v... '<json patch>'
//	shelf delete [flags] (--where k=v... | --all)
//	shelf count  [flags]
//	shelf get    [flags] <id>
//	shelf backup [flags] <file|->
//	shelf restore [flags] <file|->
//
// Common flags: --config, --env, --store, --verbose. Documents are read from
// the argument or, when it is "-" or absent, from standard input.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jpl-au/shelf"
)

var (
	errUsage       = errors.New("usage")
	errWhereFormat = errors.New("--where expects key=value")
	errNeedWhere   = errors.New("refusing to delete everything without --all")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, usage())
		return 2
	}
	cmds := map[string]func(*env, []string) error{
		"create":  cmdCreate,
		"read":    cmdRead,
		"update":  cmdUpdate,
		"delete":  cmdDelete,
		"count":   cmdCount,
		"get":     cmdGet,
		"backup":  cmdBackup,
		"restore": cmdRestore,
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Fprintln(out, usage())
		return 0
	}
	cmd, ok := cmds[name]
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command %q\n%s\n", name, usage())
		return 2
	}

	e := &env{name: name, in: in, out: out}
	if err := cmd(e, args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func usage() string {
	return `shelf - embedded document store CLI

Commands:
  create '<json>'                    Create a document, prints its ID
  read [--where k=v]...              Print matching documents as JSON lines
  update --where k=v '<json patch>'  Merge a patch into matches, prints count
  delete (--where k=v | --all)       Delete matches, prints count
  count                              Print the number of documents
  get <id>                           Print one document
  backup <file|->                    Write a compressed archive of every record
  restore <file|->                   Replace every record from an archive

Common flags:
  --config <path>   JSON/JSONC/YAML config file
  --env <name>      Environment selecting the db_path root
  --store <name>    Store name [default: default]
  -v, --verbose     Log to stderr`
}

// env carries per-invocation state shared by the subcommands.
type env struct {
	name string
	in   io.Reader
	out  io.Writer

	config  string
	envName string
	store   string
	verbose bool
}

func (e *env) flags() *flag.FlagSet {
	fs := flag.NewFlagSet(e.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&e.config, "config", "", "config file")
	fs.StringVar(&e.envName, "env", "", "environment")
	fs.StringVar(&e.store, "store", "default", "store name")
	fs.BoolVarP(&e.verbose, "verbose", "v", false, "log to stderr")
	return fs
}

func (e *env) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

func (e *env) open() (*shelf.DB, error) {
	var cfg shelf.Config
	if e.config != "" {
		var err error
		if cfg, err = shelf.LoadConfig(e.config); err != nil {
			return nil, err
		}
	}
	if e.envName != "" {
		cfg.Env = e.envName
	}
	if e.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		cfg.Logger = logger
	}
	return shelf.Open(e.store, cfg)
}

// withDB opens the store, runs fn and closes the store, reporting the
// first error.
func (e *env) withDB(fn func(*shelf.DB) error) error {
	db, err := e.open()
	if err != nil {
		return err
	}
	err = fn(db)
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	return err
}

// input returns the document text from the positional argument, or stdin
// when it is absent or "-".
func (e *env) input(fs *flag.FlagSet) ([]byte, error) {
	if fs.NArg() > 0 && fs.Arg(0) != "-" {
		return []byte(fs.Arg(0)), nil
	}
	return io.ReadAll(e.in)
}

func parseDocument(data []byte) (shelf.Document, error) {
	var doc shelf.Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// parseWhere turns k=v pairs into a predicate. Values are JSON literals;
// anything that does not parse as JSON is taken as a plain string.
func parseWhere(pairs []string) (shelf.Predicate, error) {
	pred := make(shelf.Predicate, len(pairs))
	for _, p := range pairs {
		k, raw, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", errWhereFormat, p)
		}
		var v shelf.Value
		if err := v.UnmarshalJSON([]byte(raw)); err != nil {
			v = shelf.String(raw)
		}
		pred[k] = v
	}
	return pred, nil
}

func printRecord(w io.Writer, id string, doc shelf.Document) error {
	line, err := shelf.D("id", id, "doc", doc).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", line)
	return err
}

func cmdCreate(e *env, args []string) error {
	fs := e.flags()
	if err := e.parse(fs, args); err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	return e.withDB(func(db *shelf.DB) error {
		id, err := db.Create(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, id)
		return nil
	})
}

func cmdRead(e *env, args []string) error {
	fs := e.flags()
	where := fs.StringArray("where", nil, "field=value (repeatable)")
	orderBy := fs.String("order", "", `ordering, e.g. "year DESC, meta.rank"`)
	offset := fs.Int("offset", 0, "skip this many results")
	limit := fs.Int("limit", 0, "return at most this many results")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	pred, err := parseWhere(*where)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	keys, err := shelf.ParseOrder(*orderBy)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	opts := &shelf.ReadOptions{Order: keys, Offset: *offset, Limit: *limit}

	return e.withDB(func(db *shelf.DB) error {
		recs, err := db.Find(pred, opts)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if err := printRecord(e.out, r.ID, r.Doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func cmdUpdate(e *env, args []string) error {
	fs := e.flags()
	where := fs.StringArray("where", nil, "field=value (repeatable)")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	pred, err := parseWhere(*where)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	patch, err := parseDocument(data)
	if err != nil {
		return err
	}
	return e.withDB(func(db *shelf.DB) error {
		n, err := db.Update(pred, patch)
		fmt.Fprintln(e.out, n)
		return err
	})
}

func cmdDelete(e *env, args []string) error {
	fs := e.flags()
	where := fs.StringArray("where", nil, "field=value (repeatable)")
	all := fs.Bool("all", false, "delete every document")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	pred, err := parseWhere(*where)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if len(pred) == 0 && !*all {
		return fmt.Errorf("%w: %w", errUsage, errNeedWhere)
	}
	return e.withDB(func(db *shelf.DB) error {
		n, err := db.Delete(pred)
		fmt.Fprintln(e.out, n)
		return err
	})
}

func cmdCount(e *env, args []string) error {
	fs := e.flags()
	if err := e.parse(fs, args); err != nil {
		return err
	}
	return e.withDB(func(db *shelf.DB) error {
		fmt.Fprintln(e.out, db.Count())
		return nil
	})
}

func cmdGet(e *env, args []string) error {
	fs := e.flags()
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: get takes exactly one id", errUsage)
	}
	return e.withDB(func(db *shelf.DB) error {
		doc, err := db.Get(fs.Arg(0))
		if err != nil {
			return err
		}
		return printRecord(e.out, fs.Arg(0), doc)
	})
}

func cmdBackup(e *env, args []string) error {
	fs := e.flags()
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: backup takes a file name or -", errUsage)
	}
	return e.withDB(func(db *shelf.DB) error {
		if fs.Arg(0) == "-" {
			return db.Backup(e.out)
		}
		f, err := os.Create(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := db.Backup(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func cmdRestore(e *env, args []string) error {
	fs := e.flags()
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: restore takes a file name or -", errUsage)
	}
	return e.withDB(func(db *shelf.DB) error {
		if fs.Arg(0) == "-" {
			return db.Restore(e.in)
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		return db.Restore(f)
	})
}
