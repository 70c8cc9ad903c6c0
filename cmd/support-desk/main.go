package main

import (
	"log"

	"github.com/loanserve/support-desk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
