package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		r, err := buildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		bookings := r.coord.List(limit)
		if len(bookings) == 0 {
			fmt.Println("No bookings found.")
			return nil
		}

		t := newTableStyles().newTable("ID", "Guest", "When", "Status")
		for _, b := range bookings {
			guest := b.Guest.Name
			if b.Guest.Email != "" {
				guest += " <" + b.Guest.Email + ">"
			}
			t.Row(
				b.ID,
				truncateString(guest, 36),
				b.Slot.FormatIn(cfg.Availability.Timezone),
				string(b.Status),
			)
		}
		fmt.Println(t.String())
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <booking-id>",
	Short: "Cancel a booking and free its slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		if err := r.coord.Cancel(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Booking %s cancelled.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bookingsCmd)
	bookingsCmd.Flags().Int("limit", 20, "maximum number of bookings to show")
	rootCmd.AddCommand(cancelCmd)
}
