package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/admin"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	backend core.BackendClient
	conn    *connect.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  checkconn                  - probe the backend and print the connection status")
	fmt.Fprintln(cli.out, "  login -email EMAIL         - sign in against the backend; the password will be prompted")
	fmt.Fprintln(cli.out, "  mockdata [-resource NAME]  - print a demo dataset as JSON (courses|modules|coupons|users|dashboard)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The account's email. The password will be prompted next.")

	mockdataCmd := flag.NewFlagSet("mockdata", flag.ExitOnError)
	mockdataResource := mockdataCmd.String("resource", "", "The dataset to print; all of them when omitted.")

	switch args[1] {
	case "checkconn":
		return cli.checkConnection()
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginEmail, string(pwd))
	case "mockdata":
		if err := mockdataCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.mockData(*mockdataResource)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) checkConnection() error {
	ok, err := cli.conn.CheckConnection(context.Background())
	snap := cli.conn.Status()
	out, _ := json.MarshalIndent(snap, "", "  ")
	fmt.Fprintln(cli.out, string(out))
	if !ok {
		return err
	}
	return nil
}

func (cli *commandLine) login(email, password string) error {
	var sess core.Session
	err := cli.conn.Do(context.Background(), "sign in", func(ctx context.Context) error {
		var serr error
		sess, serr = cli.backend.SignIn(ctx, email, password)
		return serr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "signed in as %s (%s)\n", sess.Email, sess.UserID)
	fmt.Fprintf(cli.out, "access token: %s\n", sess.AccessToken)
	return nil
}

func (cli *commandLine) mockData(resource string) error {
	datasets := map[string]interface{}{
		"courses":   admin.MockCourses(),
		"modules":   admin.MockModules("00000000-0000-4000-8000-000000000000"),
		"coupons":   admin.MockCoupons(),
		"users":     admin.MockUsers(),
		"dashboard": admin.MockDashboard(),
	}

	if resource != "" {
		data, ok := datasets[resource]
		if !ok {
			return fmt.Errorf("unknown resource %q", resource)
		}
		return cli.printJSON(data)
	}
	return cli.printJSON(datasets)
}

func (cli *commandLine) printJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}
