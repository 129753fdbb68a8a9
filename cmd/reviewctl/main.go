package main

import "chess_review/internal/cli"

func main() {
	cli.Execute()
}
