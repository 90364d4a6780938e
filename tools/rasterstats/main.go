// Command rasterstats prints and checks raster statistics and runs
// round-trip manifests.
package main

import (
	"os"

	"github.com/cocosip/go-rasterstats/tools/rasterstats/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
