// Command jscan scans a Java classpath and answers hierarchy queries
// without invoking a JVM class loader.
package main

import (
	"os"

	"github.com/corescan/jscan/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
