// Command sctree compiles selector rules, flattens documents, publishes
// flattened trees as chunks and styles trees.
//
//	sctree [-config file] [-env file] <command> [flags]
//
// Commands:
//
//	compile  -schema s.yaml -rules r.css [-kernel name] [-passes a,b]
//	flatten  -schema s.yaml -doc d.json [-dot] [-fields f,g]
//	publish  -schema s.yaml -doc d.json -root tree.json
//	style    -schema s.yaml [-rules r.css] (-doc d.json | -root tree.json) [-props p,q]
//
// Documents ending in .html are parsed as HTML; their <style> elements
// provide the rules if -rules is not given. Chunk stores are selected by
// the configuration (see package config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/npillmayer/sctree"
	"github.com/npillmayer/sctree/config"
	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/dom/style/cssom/douceuradapter"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/flat/flatdbg"
	"github.com/npillmayer/sctree/loader"
	"github.com/npillmayer/sctree/metrics"
	"github.com/npillmayer/sctree/selector"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/html"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("sctree: ")
	configFile := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "file with environment variables")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Tracing.Apply()
	cmds := map[string]func(context.Context, *config.Config, []string) error{
		"compile": compile,
		"flatten": flatten,
		"publish": publish,
		"style":   style,
	}
	cmd, ok := cmds[flag.Arg(0)]
	if !ok {
		log.Printf("unknown command %q", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	ctx := context.Background()
	if cfg.Loader.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Loader.Timeout)
		defer cancel()
	}
	if err := cmd(ctx, cfg, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"usage: sctree [-config file] [-env file] compile|flatten|publish|style [flags]\n")
	flag.PrintDefaults()
}

// --- Commands --------------------------------------------------------------

func compile(_ context.Context, _ *config.Config, args []string) error {
	fl := flag.NewFlagSet("compile", flag.ExitOnError)
	schemaFile := fl.String("schema", "", "schema file (YAML)")
	rulesFile := fl.String("rules", "", "rules file")
	kernelName := fl.String("kernel", "", "emit kernel source with this entry point")
	passes := fl.String("passes", "", "comma-separated further entry points")
	fl.Parse(args)
	sess, err := session(*schemaFile)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(*rulesFile)
	if err != nil {
		return err
	}
	idx, err := sess.Compile(string(text))
	if err != nil {
		return err
	}
	if *kernelName == "" {
		fmt.Print(idx.Dump())
		return nil
	}
	return sess.Kernel(os.Stdout, idx, *kernelName, list(*passes)...)
}

func flatten(_ context.Context, _ *config.Config, args []string) error {
	fl := flag.NewFlagSet("flatten", flag.ExitOnError)
	schemaFile := fl.String("schema", "", "schema file (YAML)")
	docFile := fl.String("doc", "", "document (JSON or HTML)")
	dot := fl.Bool("dot", false, "print GraphViz instead of a tree")
	fields := fl.String("fields", "", "comma-separated buffers to show with -dot")
	fl.Parse(args)
	sess, err := session(*schemaFile)
	if err != nil {
		return err
	}
	l, _, err := readDocument(sess, *docFile)
	if err != nil {
		return err
	}
	if *dot {
		return flatdbg.ToGraphViz(l, os.Stdout, list(*fields))
	}
	fmt.Print(flatdbg.TreePrint(l))
	return nil
}

func publish(ctx context.Context, cfg *config.Config, args []string) error {
	fl := flag.NewFlagSet("publish", flag.ExitOnError)
	schemaFile := fl.String("schema", "", "schema file (YAML)")
	docFile := fl.String("doc", "", "document (JSON or HTML)")
	root := fl.String("root", cfg.Loader.Root, "locator of the manifest")
	fl.Parse(args)
	sess, err := session(*schemaFile)
	if err != nil {
		return err
	}
	l, _, err := readDocument(sess, *docFile)
	if err != nil {
		return err
	}
	_, sink, release, err := sctree.Stores(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()
	if sink == nil {
		return fmt.Errorf("chunk source %s cannot be published to", cfg.Loader.Source)
	}
	opts, err := sctree.PublishOptions(cfg)
	if err != nil {
		return err
	}
	m, err := loader.Publish(ctx, l, *root, sink, opts)
	if err != nil {
		return err
	}
	log.Printf("published %d nodes in %d chunks at %s", m.TreeSize, len(m.Summary), *root)
	return nil
}

func style(ctx context.Context, cfg *config.Config, args []string) error {
	fl := flag.NewFlagSet("style", flag.ExitOnError)
	schemaFile := fl.String("schema", "", "schema file (YAML)")
	rulesFile := fl.String("rules", "", "rules file")
	docFile := fl.String("doc", "", "document (JSON or HTML)")
	root := fl.String("root", cfg.Loader.Root, "locator of a published tree")
	props := fl.String("props", "", "comma-separated properties to print")
	fl.Parse(args)
	var opts []sctree.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		opts = append(opts, sctree.WithMetrics(metrics.New(reg)))
		go func() {
			log.Printf("metrics: %v", http.ListenAndServe(cfg.Metrics.Addr, metrics.Handler(reg)))
		}()
	}
	if a := sctree.Accelerator(cfg); a != nil {
		opts = append(opts, sctree.WithAccelerator(a))
	}
	sess, err := session(*schemaFile, opts...)
	if err != nil {
		return err
	}
	var l *flat.Layout
	var idx *selector.Index
	if *docFile != "" {
		var sheets []*douceuradapter.CSSStyles
		if l, sheets, err = readDocument(sess, *docFile); err != nil {
			return err
		}
		if *rulesFile == "" && len(sheets) > 0 {
			for _, s := range sheets[1:] {
				sheets[0].AppendRules(s)
			}
			if idx, err = sess.CompileSheet(sheets[0]); err != nil {
				return err
			}
		}
	} else {
		src, _, release, err := sctree.Stores(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()
		lopts, err := sctree.LoaderOptions(cfg)
		if err != nil {
			return err
		}
		if l, err = sess.Load(ctx, src, *root, lopts...); err != nil {
			return err
		}
	}
	if idx == nil {
		text, err := os.ReadFile(*rulesFile)
		if err != nil {
			return err
		}
		if idx, err = sess.Compile(string(text)); err != nil {
			return err
		}
	}
	m, err := sess.Style(ctx, idx, l)
	if err != nil {
		return err
	}
	names := list(*props)
	if len(names) == 0 {
		names = idx.Properties
	}
	return printStyles(os.Stdout, l, m.Selectors(), names)
}

// --- Helpers ---------------------------------------------------------------

func session(schemaFile string, opts ...sctree.Option) (*sctree.Session, error) {
	if schemaFile == "" {
		return nil, fmt.Errorf("no schema given")
	}
	f, err := os.Open(schemaFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sch, err := schema.Load(f)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", schemaFile, err)
	}
	return sctree.NewSession(sch, opts...), nil
}

// readDocument flattens a JSON or HTML document. For HTML, its style
// elements are returned as well.
func readDocument(sess *sctree.Session, path string) (*flat.Layout, []*douceuradapter.CSSStyles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var doc *dom.Node
	var sheets []*douceuradapter.CSSStyles
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		h, err := html.Parse(f)
		if err != nil {
			return nil, nil, err
		}
		doc = dom.FromHTML(h)
		sheets = douceuradapter.ExtractStyleElements(h)
	default:
		if doc, err = dom.Decode(f); err != nil {
			return nil, nil, err
		}
	}
	l, err := sess.Flatten(doc)
	return l, sheets, err
}

func printStyles(w io.Writer, l *flat.Layout, selectors []int32, names []string) error {
	fmt.Fprintf(w, "node\tselectors")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	for n := 0; n < l.Size; n++ {
		fmt.Fprintf(w, "%d\t%d", n, selectors[n])
		for _, name := range names {
			b, ok := l.Buffer(name)
			if !ok {
				return fmt.Errorf("no buffer %s", name)
			}
			fmt.Fprintf(w, "\t%v", b.At(n))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func list(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
