// ./main.go
package main

import (
	"github.com/reasonos/websurfer/cmd"
)

func main() {
	cmd.Execute()
}
