package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/admin"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
	dummybackend "github.com/Nono8Six/ia-learning-sub000/services/backend/dummy"
	logsvc "github.com/Nono8Six/ia-learning-sub000/services/logger"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	conf := &core.Config{TestMode: true, AppName: "IA Learning"}
	conf.Backend.CallTimeout = time.Second
	conf.Backend.ProbeTimeout = time.Second

	backend := dummybackend.NewService()
	conn := connect.NewService(conf, backend, logsvc.NewConsoleLogger(log.New(io.Discard, "", 0)), nil)

	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:    conf,
		backend: backend,
		conn:    conn,
		out:     out,
	}
	return cli, out
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_run(t *testing.T) {
	tests := []cliTest{
		{name: "no args prints usage", args: nil, wantErr: errHelp},
		{name: "unknown command prints usage", args: []string{"frobnicate"}, wantErr: errHelp},
		{name: "login requires email", args: []string{"login"}, wantErr: errHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := setup(t)
			args := append([]string{"admin"}, tt.args...)
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_login(t *testing.T) {
	cli, out := setup(t)

	prev := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	defer func() { readPasswordFunc = prev }()

	if err := cli.run([]string{"admin", "login", "-email", "admin@example.com"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "signed in as admin@example.com") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func Test_commandLine_loginEmptyPassword(t *testing.T) {
	cli, _ := setup(t)

	prev := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	defer func() { readPasswordFunc = prev }()

	if err := cli.run([]string{"admin", "login", "-email", "admin@example.com"}); err != errHelp {
		t.Errorf("run() error = %v, want errHelp", err)
	}
}

func Test_commandLine_checkconn(t *testing.T) {
	cli, out := setup(t)

	if err := cli.run([]string{"admin", "checkconn"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var snap connect.StatusSnapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("output is not a status snapshot: %v\n%s", err, out.String())
	}
	if !snap.Online {
		t.Error("Online = false with a healthy backend, want true")
	}
}

func Test_commandLine_mockdata(t *testing.T) {
	cli, out := setup(t)

	if err := cli.run([]string{"admin", "mockdata", "-resource", "coupons"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var coupons []admin.Coupon
	if err := json.Unmarshal(out.Bytes(), &coupons); err != nil {
		t.Fatalf("output is not a coupon list: %v\n%s", err, out.String())
	}
	if len(coupons) != 4 {
		t.Errorf("got %d coupons, want 4", len(coupons))
	}
}

func Test_commandLine_mockdataUnknownResource(t *testing.T) {
	cli, _ := setup(t)

	if err := cli.run([]string{"admin", "mockdata", "-resource", "bogus"}); err == nil {
		t.Error("run() expected error for unknown resource")
	}
}
