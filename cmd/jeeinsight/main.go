package main

import (
	"os"

	"github.com/cloo-solutions/jeeinsight/internal/cli"
	"github.com/cloo-solutions/jeeinsight/internal/cli/client"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(client.NewRootCmd(version), os.Args[1:], os.Stdout, os.Stderr))
}
