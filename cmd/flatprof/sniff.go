package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flatprof/internal/config"
	"flatprof/internal/datasource/file"
	"flatprof/internal/sniff"
)

var sniffSampleBytes int

var sniffCmd = &cobra.Command{
	Use:   "sniff [file]",
	Short: "Detect a file's encoding and delimiter without profiling it",
	Long: `Read a byte sample from the file and print the detected encoding,
field delimiter, and first-line column count. This is the same detection the
profile command runs before its streaming pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSniff(cmd.Context(), args[0])
	},
}

func init() {
	sniffCmd.Flags().IntVar(&sniffSampleBytes, "sample-bytes", config.DefaultSampleBytes,
		"prefix length fed to detection")
	rootCmd.AddCommand(sniffCmd)
}

func runSniff(ctx context.Context, path string) error {
	src := file.NewLocal(path)
	sample, err := src.Sample(ctx, sniffSampleBytes)
	if err != nil {
		return err
	}
	props, err := sniff.Detect(sample)
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", path)
	if size, err := src.Size(); err == nil {
		fmt.Printf("Size:      %s\n", humanize.Bytes(uint64(size)))
	}
	fmt.Printf("Encoding:  %s\n", props.EncodingName)
	fmt.Printf("Delimiter: %q\n", props.Delimiter)
	fmt.Printf("Columns:   %d\n", props.Columns)
	return nil
}
