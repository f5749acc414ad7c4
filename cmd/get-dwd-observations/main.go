// Command get-dwd-observations loads the observations of the last two days
// into the configured observations table. It is meant to run once a day.
package main

import "dwd-connect/internal/cli"

func main() {
	cli.Run("observations", "--yes")
}
