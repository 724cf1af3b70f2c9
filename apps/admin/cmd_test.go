package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/pagebuilder/apps/api/echo"
	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
	logsvc "github.com/trezcool/pagebuilder/services/logger"
	"github.com/trezcool/pagebuilder/storage/database"
	sqlxrepos "github.com/trezcool/pagebuilder/storage/database/sqlx"
	"github.com/trezcool/pagebuilder/tests"
)

var pageRepo page.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	pageRepo = sqlxrepos.NewPageRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	page.InitValidators(validate, translator)

	conf := &core.Config{
		AppName:   "Masomo Pages",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Database:  core.DatabaseConfig{Engine: database.EngineSQLite},
	}

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		conf:     conf,
		db:       db,
		pageSvc:  page.NewService(pageRepo, logsvc.NewDiscardLogger(), page.NewMetrics(prometheus.NewRegistry())),
		validate: validate,
		in:       strings.NewReader(""),
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "token: no args", args: []string{"token"}, wantErr: errHelp},
		{name: "token: no roles", args: []string{"token", "-sub", "u-1"}, wantErr: errHelp},
		{name: "createpage: no args", args: []string{"createpage"}, wantErr: errHelp},
		{name: "createpage: help", args: []string{"createpage", "-h"}, wantErr: errHelp},
		{name: "exportpage: no args", args: []string{"exportpage"}, wantErr: errHelp},
		{name: "importpage: no args", args: []string{"importpage"}, wantErr: errHelp},
		{name: "diffpage: no file", args: []string{"diffpage", "-name", "home"}, wantErr: errHelp},
		{name: "deletepage: no args", args: []string{"deletepage"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			tt.check(t, cli.run(args))
			assert.NotEmpty(t, out.String())
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })

	gooseRunFunc = func(db *sql.DB, engine, command string, args ...string) error {
		if engine != database.EngineSQLite {
			return fmt.Errorf("unexpected engine %q", engine)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "page_revision", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrate_status(t *testing.T) {
	cli, _ := setup(t)
	tt := cliTest{name: "status on a migrated db"}
	tt.check(t, cli.run([]string{"admin", "migrate", "status"}))
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "unknown role", args: []string{"token", "-sub", "u-1", "-roles", "student:"}, wantErr: errUnknownRole},
		{name: "ok", args: []string{"token", "-sub", "u-1", "-name", "Awe", "-roles", "editor:, viewer:math"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}

			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(cli.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, "u-1", claims.Subject)
			assert.Equal(t, "Awe", claims.Name)
			assert.Equal(t, []string{echoapi.RoleEditor, "viewer:math"}, claims.Roles)
		})
	}
}

func Test_commandLine_createPage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "invalid name", args: []string{"createpage", "-name", "not a slug!"}},
		{name: "ok", args: []string{"createpage", "-name", "Home", "-title", " Welcome "}},
		{name: "duplicate", args: []string{"createpage", "-name", "home"}},
	}
	for i, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if i == 1 {
				require.NoError(t, err)
				p, err := pageRepo.GetPage(context.Background(), "home")
				require.NoError(t, err)
				assert.Equal(t, "Welcome", p.Title)
				assert.Equal(t, 1, p.Version)
				return
			}
			assert.Error(t, err)
			if _, ok := err.(*core.ValidationError); !ok {
				if _, ok = err.(validator.ValidationErrors); !ok {
					t.Errorf("cli.run() error = %T, want a validation error", err)
				}
			}
		})
	}
}

func Test_commandLine_exportImportPage(t *testing.T) {
	for _, format := range []string{formatJSON, formatYAML} {
		t.Run(format, func(t *testing.T) {
			cli, out := setup(t)
			ctx := context.Background()
			src := testutil.CreatePage(t, pageRepo, "home", "Home", "heading", "text", "image")
			file := filepath.Join(t.TempDir(), "home."+format)

			// export
			require.NoError(t, cli.run([]string{"admin", "exportpage", "-name", "home", "-format", format, "-o", file}))
			assert.Empty(t, out.String())

			// import as a new page
			require.NoError(t, cli.run([]string{"admin", "importpage", "-file", file, "-name", "home-copy"}))
			cp, err := pageRepo.GetPage(ctx, "home-copy")
			require.NoError(t, err)
			assert.Equal(t, "Home", cp.Title)
			assert.Equal(t, 2, cp.Version) // created, then saved
			assert.Equal(t, componentIDs(src.Layout), componentIDs(cp.Layout))

			// import over the existing page
			require.NoError(t, cli.run([]string{"admin", "importpage", "-file", file}))
			p, err := pageRepo.GetPage(ctx, "home")
			require.NoError(t, err)
			assert.Equal(t, 2, p.Version)
			assert.Equal(t, componentIDs(src.Layout), componentIDs(p.Layout))
		})
	}
}

func Test_commandLine_exportPage_errors(t *testing.T) {
	cli, out := setup(t)
	testutil.CreatePage(t, pageRepo, "home", "Home", "text")

	tests := []cliTest{
		{name: "page not found", args: []string{"exportpage", "-name", "nope"}, wantErr: page.ErrNotFound},
		{name: "unknown format", args: []string{"exportpage", "-name", "home", "-format", "xml"}, wantErr: errUnknownFormat},
		{name: "stdout", args: []string{"exportpage", "-name", "home"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				doc, err := decodeDocument(out.Bytes(), formatJSON)
				require.NoError(t, err)
				assert.Equal(t, "home", doc.Name)
			}
		})
	}
}

func Test_commandLine_importPage_invalid(t *testing.T) {
	cli, _ := setup(t)
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yml")
	require.NoError(t, ioutil.WriteFile(dup, []byte(`name: dup
title: Dup
layout:
  sections:
    - type: body
      components:
        - {id: c1, type: text, data: {content: a}}
        - {id: c1, type: text, data: {content: b}}
`), 0o644))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, ioutil.WriteFile(garbage, []byte(`{"name": `), 0o644))

	err := cli.run([]string{"admin", "importpage", "-file", dup})
	require.Error(t, err)
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "error = %T", err)
	assert.Equal(t, layout.ErrInvalidLayout, verr.Err)

	assert.Error(t, cli.run([]string{"admin", "importpage", "-file", garbage}))
	assert.Error(t, cli.run([]string{"admin", "importpage", "-file", filepath.Join(dir, "missing.json")}))
}

func Test_commandLine_diffPage(t *testing.T) {
	cli, out := setup(t)
	testutil.CreatePage(t, pageRepo, "home", "Home", "text")
	file := filepath.Join(t.TempDir(), "home.json")
	require.NoError(t, cli.run([]string{"admin", "exportpage", "-name", "home", "-o", file}))

	require.NoError(t, cli.run([]string{"admin", "diffpage", "-name", "home", "-file", file}))
	assert.Equal(t, "no differences\n", out.String())

	data, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(file, bytes.Replace(data, []byte(`"title": "Home"`), []byte(`"title": "Accueil"`), 1), 0o644))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "diffpage", "-name", "home", "-file", file}))
	diff := out.String()
	assert.Contains(t, diff, "--- stored/home")
	assert.Contains(t, diff, "+++ "+file)
	assert.Contains(t, diff, `-  "title": "Home",`)
	assert.Contains(t, diff, `+  "title": "Accueil",`)
}

func Test_commandLine_deletePage(t *testing.T) {
	cli, _ := setup(t)
	testutil.CreatePage(t, pageRepo, "home", "Home")

	orig := isTerminalFunc
	t.Cleanup(func() { isTerminalFunc = orig })

	type extra struct {
		terminal bool
		answer   string
	}
	tests := []cliTest{
		{name: "not a terminal", args: []string{"deletepage", "-name", "home"}, wantErr: errNeedsConfirm},
		{name: "declined", args: []string{"deletepage", "-name", "home"}, extra: extra{terminal: true, answer: "n\n"}, wantErr: errAborted},
		{name: "no answer", args: []string{"deletepage", "-name", "home"}, extra: extra{terminal: true}, wantErr: errAborted},
		{name: "confirmed", args: []string{"deletepage", "-name", "home"}, extra: extra{terminal: true, answer: "Yes\n"}},
		{name: "not found", args: []string{"deletepage", "-name", "home", "-yes"}, wantErr: page.ErrNotFound},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		ex, _ := tt.extra.(extra)
		isTerminalFunc = func(fd int) bool { return ex.terminal }
		cli.in = strings.NewReader(ex.answer)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	_, err := pageRepo.GetPage(context.Background(), "home")
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))
}

func Test_commandLine_catalog(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.run([]string{"admin", "catalog"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(layout.Types())+1)
	assert.True(t, strings.HasPrefix(lines[0], "CATEGORY"))
	for _, typ := range layout.Types() {
		assert.Contains(t, out.String(), " "+typ+" ")
	}
}

func componentIDs(l layout.Layout) map[string][]string {
	ids := make(map[string][]string)
	for _, sec := range l.Sections {
		ids[sec.Type] = []string{}
		for _, comp := range sec.Components {
			ids[sec.Type] = append(ids[sec.Type], comp.ID+":"+comp.Type)
		}
	}
	return ids
}
