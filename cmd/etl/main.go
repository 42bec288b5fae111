// Command etl loads the songplays star schema from song and log JSON files.
//
//	etl run                 run the pipeline
//	etl validate            lint the configuration and exit
//	etl schema create|drop  apply or drop the warehouse tables
package main

import (
	"os"

	// Register every storage backend; the config selects one by kind.
	_ "songplays/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
