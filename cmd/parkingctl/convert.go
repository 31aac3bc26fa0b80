package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zeecm/parking/internal/svy21"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between SVY21 and WGS84 coordinates",
}

var toWGS84Cmd = &cobra.Command{
	Use:   "wgs84 <northing> <easting>",
	Short: "Convert SVY21 northing/easting to WGS84 lat/lon",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		northing, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid northing %q: %w", args[0], err)
		}
		easting, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid easting %q: %w", args[1], err)
		}

		lat, lon := svy21.ToLatLon(northing, easting)
		fmt.Printf("lat: %.8f\nlon: %.8f\n", lat, lon)
		return nil
	},
}

var toSVY21Cmd = &cobra.Command{
	Use:   "svy21 <lat> <lon>",
	Short: "Convert WGS84 lat/lon to SVY21 northing/easting",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}

		northing, easting := svy21.ToSVY21(lat, lon)
		fmt.Printf("northing: %.4f\neasting: %.4f\n", northing, easting)
		return nil
	},
}

func init() {
	convertCmd.AddCommand(toWGS84Cmd)
	convertCmd.AddCommand(toSVY21Cmd)
	rootCmd.AddCommand(convertCmd)
}
