package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Print the currently offerable slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		slots, err := r.coord.Slots(cmd.Context())
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			fmt.Println("No open slots in the booking window.")
			return nil
		}

		t := newTableStyles().newTable("#", "When", "Timezone")
		for i, slot := range slots {
			t.Row(strconv.Itoa(i+1), slot.Format(), slot.Timezone)
		}
		fmt.Println(t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slotsCmd)
}
