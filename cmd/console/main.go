package main

import "github.com/spec-kit/admin-console/internal/cli"

func main() {
	cli.Execute()
}
