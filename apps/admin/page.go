package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errUnknownFormat = errors.New("unknown format")
	errAborted       = errors.New("aborted")
	errNeedsConfirm  = errors.New("refusing to delete without -yes outside a terminal")
)

// document is the file representation of a page.
type document struct {
	Name   string        `json:"name" yaml:"name"`
	Title  string        `json:"title" yaml:"title"`
	Layout layout.Layout `json:"layout" yaml:"layout"`
}

// fileFormat returns format if set, else guesses it from the file extension.
func fileFormat(path, format string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = formatYAML
		default:
			format = formatJSON
		}
	}
	if format != formatJSON && format != formatYAML {
		return "", errors.Wrapf(errUnknownFormat, "%q", format)
	}
	return format, nil
}

func encodeDocument(doc document, format string) ([]byte, error) {
	doc.Layout = layout.Normalize(doc.Layout)
	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case formatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, errors.Wrapf(errUnknownFormat, "%q", format)
	}
}

func decodeDocument(data []byte, format string) (document, error) {
	var doc document
	var err error
	switch format {
	case formatJSON:
		err = json.Unmarshal(data, &doc)
	case formatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = errors.Wrapf(errUnknownFormat, "%q", format)
	}
	if err != nil {
		return doc, errors.Wrap(err, "decoding page document")
	}
	doc.Layout = layout.Normalize(doc.Layout)
	return doc, nil
}

func readDocument(path, format string) (document, error) {
	format, err := fileFormat(path, format)
	if err != nil {
		return document{}, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return document{}, errors.Wrap(err, "reading page document")
	}
	return decodeDocument(data, format)
}

func (cli *commandLine) createPage(name, title string) error {
	ctx := context.Background()
	np := page.NewPage{Name: name, Title: title}
	if err := np.Validate(ctx, cli.validate, cli.pageSvc); err != nil {
		return err
	}
	p, err := cli.pageSvc.Create(ctx, np)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "page %q created (version %d)\n", p.Name, p.Version)
	return nil
}

func (cli *commandLine) exportPage(name, format, out string) error {
	p, err := cli.pageSvc.Get(context.Background(), name)
	if err != nil {
		return err
	}
	data, err := encodeDocument(document{Name: p.Name, Title: p.Title, Layout: p.Layout}, format)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = cli.out.Write(data)
		return err
	}
	return ioutil.WriteFile(out, data, 0o644)
}

// importPage saves the layout found in path over the named page, creating the page first if needed.
func (cli *commandLine) importPage(path, name, format string) error {
	ctx := context.Background()
	doc, err := readDocument(path, format)
	if err != nil {
		return err
	}
	if name != "" {
		doc.Name = name
	}
	if err = layout.Validate(doc.Layout); err != nil {
		return err
	}

	p, err := cli.pageSvc.Get(ctx, doc.Name)
	switch errors.Cause(err) {
	case nil:
	case page.ErrNotFound:
		np := page.NewPage{Name: doc.Name, Title: doc.Title}
		if err = np.Validate(ctx, cli.validate, cli.pageSvc); err != nil {
			return err
		}
		if p, err = cli.pageSvc.Create(ctx, np); err != nil {
			return err
		}
	default:
		return err
	}

	sl := page.SaveLayout{Title: &doc.Title, Layout: doc.Layout, Version: p.Version}
	if err = sl.Validate(cli.validate); err != nil {
		return err
	}
	if p, err = cli.pageSvc.SaveLayout(ctx, p.Name, sl); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "page %q imported (version %d)\n", p.Name, p.Version)
	return nil
}

// diffPage prints a unified diff going from the stored layout to the one in path.
func (cli *commandLine) diffPage(name, path, format string) error {
	p, err := cli.pageSvc.Get(context.Background(), name)
	if err != nil {
		return err
	}
	doc, err := readDocument(path, format)
	if err != nil {
		return err
	}

	stored, err := encodeDocument(document{Name: p.Name, Title: p.Title, Layout: p.Layout}, formatJSON)
	if err != nil {
		return err
	}
	doc.Name = p.Name
	wanted, err := encodeDocument(doc, formatJSON)
	if err != nil {
		return err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(stored)),
		B:        difflib.SplitLines(string(wanted)),
		FromFile: "stored/" + p.Name,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cli.out, "no differences")
		return nil
	}
	fmt.Fprint(cli.out, diff)
	return nil
}

func (cli *commandLine) deletePage(name string, yes bool) error {
	if !yes {
		if !isTerminalFunc(int(os.Stdin.Fd())) {
			return errNeedsConfirm
		}
		fmt.Fprintf(cli.out, "Delete page %q? [y/N] ", name)
		answer, _ := bufio.NewReader(cli.in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			return errAborted
		}
	}

	n, err := cli.pageSvc.Delete(context.Background(), name)
	if err != nil {
		return err
	}
	if n == 0 {
		return page.ErrNotFound
	}
	fmt.Fprintf(cli.out, "page %q deleted\n", name)
	return nil
}
