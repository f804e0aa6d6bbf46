package main

import "github.com/vietddude/curator/internal/cli"

func main() {
	cli.Execute()
}
