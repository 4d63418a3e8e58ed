// Command envseal-cli is a client for the envseal token service.
package main

import "github.com/envseal/envseal/cmd/cli"

func main() {
	cli.Execute()
}
