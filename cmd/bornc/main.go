// Command bornc compiles exported tensor programs into accelerator context binaries.
package main

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/born-ml/bornc/internal/cli"
)

func main() {
	err := cli.Execute()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
