package main

import (
	"context"
	"os"

	"github.com/Aashish23092/runlog-ocr/cmd"
)

func main() {
	if err := cmd.RootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
