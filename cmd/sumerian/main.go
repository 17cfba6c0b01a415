// Command sumerian inspects and maintains the file safety state of a project.
package main

import "github.com/sumerian-dev/sumerian/internal/cli"

func main() {
	cli.Execute()
}
