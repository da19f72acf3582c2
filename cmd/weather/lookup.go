package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-snapshot-client/internal/landing"
	"github.com/kjstillabower/weather-snapshot-client/internal/models"
	"github.com/kjstillabower/weather-snapshot-client/internal/validation"
)

func newCoordsCmd(a *app) *cobra.Command {
	var lat, lon string
	cmd := &cobra.Command{
		Use:   "coords",
		Short: "Print the snapshot for a latitude/longitude",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			latV, lonV, err := validation.ParseCoordinates(lat, lon)
			if err != nil {
				return err
			}
			svc, err := a.newWeatherService()
			if err != nil {
				return err
			}
			snap, err := svc.GetWeatherByCoords(cmd.Context(), latV, lonV)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}
	// Strings so a missing flag reaches the validator as "required".
	cmd.Flags().StringVar(&lat, "lat", "", "latitude in [-90, 90]")
	cmd.Flags().StringVar(&lon, "lon", "", "longitude in [-180, 180]")
	return cmd
}

func newZipCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "zip <code>",
		Short: "Print the snapshot for a US ZIP code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zip, err := validation.ValidateZip(args[0])
			if err != nil {
				return landing.ErrInvalidZip
			}
			svc, err := a.newWeatherService()
			if err != nil {
				return err
			}
			snap, err := svc.GetWeatherByZip(cmd.Context(), zip)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}
}

func printSnapshot(cmd *cobra.Command, snap models.Snapshot) error {
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
