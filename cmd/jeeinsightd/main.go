package main

import (
	"os"

	"github.com/cloo-solutions/jeeinsight/internal/cli"
	"github.com/cloo-solutions/jeeinsight/internal/cli/admin"
)

var version = "dev"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}
	os.Exit(cli.Execute(admin.NewRootCmd(version), args, os.Stdout, os.Stderr))
}
