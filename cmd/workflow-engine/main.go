package main

import (
	"context"
	"os"

	"github.com/eatingfood142434/Hackthe6ix/internal/cli"
)

func main() {
	cli.Run(context.Background(), os.Args[1:])
}
