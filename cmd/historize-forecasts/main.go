// Command historize-forecasts stores the current forecast for the grid. It
// is meant to run on a schedule so past forecasts are kept.
package main

import "dwd-connect/internal/cli"

func main() {
	cli.Run("forecasts")
}
