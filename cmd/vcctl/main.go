package main

import "github.com/information-sharing-networks/verifiedid-demo/internal/cli"

func main() {
	cli.Execute()
}
