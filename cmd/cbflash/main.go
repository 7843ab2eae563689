// Command cbflash exercises the sfcb driver end to end: register one or
// more queues, mount, append, and get records, either against the
// internal/simflash simulator (the default) or a real FT2232H-attached
// NOR flash via internal/transport.
//
// Usage mirrors gentam/gice's cmd/gice subcommand layout (read/write),
// rebuilt on cobra because the expanded CLI needs persistent flags and a
// config file the teacher's flat flag.FlagSet didn't need to cover.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagFlashType int
	flagSimFile   string
	flagDevice    bool
	flagVerbose   bool

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cbflash"})
)

func main() {
	root := &cobra.Command{
		Use:   "cbflash",
		Short: "Drive an sfcb circular-buffer-on-flash queue",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML queue layout (see Config)")
	root.PersistentFlags().IntVar(&flagFlashType, "flash-type", 0, "flash descriptor index for register, raw, and demo without --config (commands that load --config use its flash_type)")
	root.PersistentFlags().StringVar(&flagSimFile, "sim-file", "sfcb.img", "simulated flash image path (simulator mode only, i.e. without --device)")
	root.PersistentFlags().BoolVar(&flagDevice, "device", false, "drive a real FT2232H-attached chip instead of the simulator")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRegisterCommand())
	root.AddCommand(newMountCommand())
	root.AddCommand(newAppendCommand())
	root.AddCommand(newGetCommand())
	root.AddCommand(newRawCommand())
	root.AddCommand(newDemoCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
	})
}
