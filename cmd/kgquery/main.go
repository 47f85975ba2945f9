package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"kgbuilder/internal/config"
	"kgbuilder/internal/kgquery"
	"kgbuilder/internal/sink"
	"kgbuilder/internal/types/kg"
)

const usage = `usage: kgquery [flags] <command> [args]

commands:
  subject <subject> [difficulty]   topics of a subject
  prereqs <code>                   direct prerequisites
  next <code>                      direct next topics
  chain <code>                     full prerequisite chain, basics first
  subtopics <code> [depth]         next_topics walk (default depth 2)
  search <keyword>                 keyword search
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, w io.Writer) error {
	env := config.FromEnv()
	fs := flag.NewFlagSet("kgquery", flag.ContinueOnError)
	in := fs.String("in", env.Files.OutFile, "finalized node list")
	dsn := fs.String("pg", "", "read topics from Postgres instead of -in")
	subject := fs.String("subject", "", "restrict subtopics to a subject")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage); fs.PrintDefaults() }
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return fmt.Errorf("kgquery: command and argument required")
	}

	nodes, err := loadNodes(ctx, *in, *dsn)
	if err != nil {
		return err
	}
	idx := kgquery.New(nodes)

	var out any
	switch cmd, arg := rest[0], rest[1]; cmd {
	case "subject":
		var d kg.Difficulty
		if len(rest) > 2 {
			d = kg.ParseDifficulty(rest[2], "")
			if d == "" {
				return fmt.Errorf("kgquery: unknown difficulty %q", rest[2])
			}
		}
		out = summaries(idx.BySubject(arg, d))
	case "prereqs":
		out = summaries(idx.Prerequisites(arg))
	case "next":
		out = summaries(idx.NextTopics(arg))
	case "chain":
		out = idx.PrerequisiteChain(arg)
	case "subtopics":
		depth := 2
		if len(rest) > 2 {
			n, err := strconv.Atoi(rest[2])
			if err != nil {
				return fmt.Errorf("kgquery: bad depth %q", rest[2])
			}
			depth = n
		}
		out = summaries(idx.Subtopics(*subject, arg, depth))
	case "search":
		out = summaries(idx.Search(strings.Join(rest[1:], " ")))
	default:
		fs.Usage()
		return fmt.Errorf("kgquery: unknown command %q", cmd)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadNodes(ctx context.Context, path, dsn string) ([]kg.TopicNode, error) {
	if dsn == "" {
		return kg.LoadNodes(path)
	}
	pg, err := sink.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pg.Close()
	return pg.LoadNodes(ctx)
}

type summary struct {
	Code            string        `json:"code"`
	Title           string        `json:"title"`
	Subject         string        `json:"subject"`
	DifficultyLevel kg.Difficulty `json:"difficulty_level"`
}

func summaries(nodes []kg.TopicNode) []summary {
	out := make([]summary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, summary{Code: n.Code, Title: n.Title, Subject: n.Subject, DifficultyLevel: n.DifficultyLevel})
	}
	return out
}
