// ABOUTME: Device listing command
// ABOUTME: Prints every input device with the stream configurations it supports
package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List input devices and their supported formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := openHost(opts.host, "")
			if err != nil {
				return err
			}
			defer func() { _ = host.Close() }()

			devices, err := host.InputDevices()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Host: %s\n", host.Name())
			if len(devices) == 0 {
				fmt.Fprintln(out, "No input devices found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, dev := range devices {
				marker := " "
				if dev.Default {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s %s\t%s\n", marker, dev.Name, dev.ID)

				configs, err := host.SupportedConfigs(dev)
				if err != nil {
					fmt.Fprintf(tw, "\t  error: %v\n", err)
					continue
				}
				for _, c := range configs {
					fmt.Fprintf(tw, "\t  %s\n", c)
				}
			}
			return tw.Flush()
		},
	}
}
