package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/page"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB
	pageSvc  page.Service
	validate *validator.Validate
	in       io.Reader
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run a goose migration command (up, down, status...)")
	fmt.Fprintln(cli.out, "  token -sub ID -roles ROLES [-name] [-email]     - mint an API token")
	fmt.Fprintln(cli.out, "  createpage -name NAME [-title TITLE]            - create an empty page")
	fmt.Fprintln(cli.out, "  exportpage -name NAME [-format json|yaml] [-o FILE] - export a page layout")
	fmt.Fprintln(cli.out, "  importpage -file FILE [-name NAME] [-format json|yaml] - create or overwrite a page from a file")
	fmt.Fprintln(cli.out, "  diffpage -name NAME -file FILE                  - diff the stored layout against a file")
	fmt.Fprintln(cli.out, "  deletepage -name NAME [-yes]                    - delete a page")
	fmt.Fprintln(cli.out, "  catalog                                         - list the component types")
}

// parse parses a subcommand's flags, turning -h into errHelp.
func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(cli.out)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSub := tokenCmd.String("sub", "", "The subject (user id) of the token.")
	tokenName := tokenCmd.String("name", "", "The user's display name.")
	tokenEmail := tokenCmd.String("email", "", "The user's email.")
	tokenRoles := tokenCmd.String("roles", "", "Comma separated roles, eg. \"editor:,viewer:\".")

	createCmd := flag.NewFlagSet("createpage", flag.ContinueOnError)
	createName := createCmd.String("name", "", "The page name (slug).")
	createTitle := createCmd.String("title", "", "The page title.")

	exportCmd := flag.NewFlagSet("exportpage", flag.ContinueOnError)
	exportName := exportCmd.String("name", "", "The page name.")
	exportFormat := exportCmd.String("format", formatJSON, "Output format: json or yaml.")
	exportOut := exportCmd.String("o", "", "Output file. Defaults to stdout.")

	importCmd := flag.NewFlagSet("importpage", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The file to import.")
	importName := importCmd.String("name", "", "Overrides the page name found in the file.")
	importFormat := importCmd.String("format", "", "Input format: json or yaml. Guessed from the file extension by default.")

	diffCmd := flag.NewFlagSet("diffpage", flag.ContinueOnError)
	diffName := diffCmd.String("name", "", "The page name.")
	diffFile := diffCmd.String("file", "", "The file to compare with.")
	diffFormat := diffCmd.String("format", "", "File format: json or yaml. Guessed from the file extension by default.")

	deleteCmd := flag.NewFlagSet("deletepage", flag.ContinueOnError)
	deleteName := deleteCmd.String("name", "", "The page name.")
	deleteYes := deleteCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "token":
		if err := cli.parse(tokenCmd, args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" || *tokenRoles == "" {
			tokenCmd.Usage()
			return errHelp
		}
		person := core.Person{ID: *tokenSub, Name: *tokenName, Email: *tokenEmail}
		return cli.token(person, *tokenRoles)
	case "createpage":
		if err := cli.parse(createCmd, args[2:]); err != nil {
			return err
		}
		if *createName == "" {
			createCmd.Usage()
			return errHelp
		}
		return cli.createPage(*createName, *createTitle)
	case "exportpage":
		if err := cli.parse(exportCmd, args[2:]); err != nil {
			return err
		}
		if *exportName == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportPage(*exportName, *exportFormat, *exportOut)
	case "importpage":
		if err := cli.parse(importCmd, args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importPage(*importFile, *importName, *importFormat)
	case "diffpage":
		if err := cli.parse(diffCmd, args[2:]); err != nil {
			return err
		}
		if *diffName == "" || *diffFile == "" {
			diffCmd.Usage()
			return errHelp
		}
		return cli.diffPage(*diffName, *diffFile, *diffFormat)
	case "deletepage":
		if err := cli.parse(deleteCmd, args[2:]); err != nil {
			return err
		}
		if *deleteName == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.deletePage(*deleteName, *deleteYes)
	case "catalog":
		return cli.catalog()
	default:
		cli.printUsage()
		return errHelp
	}
}
