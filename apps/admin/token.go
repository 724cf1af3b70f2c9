package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/pagebuilder/apps/api/echo"
	"github.com/trezcool/pagebuilder/core"
)

var errUnknownRole = errors.New("unknown role")

// token prints a signed API token for person.
func (cli *commandLine) token(person core.Person, roles string) error {
	var claimed []string
	for _, role := range strings.Split(roles, ",") {
		role = core.CleanString(role)
		if role == "" {
			continue
		}
		if !knownRole(role) {
			return errors.Wrapf(errUnknownRole, "%q", role)
		}
		claimed = append(claimed, role)
	}

	token, err := echoapi.GenerateToken(echoapi.NewClaims(cli.conf, person, claimed), cli.conf)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func knownRole(role string) bool {
	for _, prefix := range echoapi.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}
