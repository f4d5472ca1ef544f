package cmd

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/src/core/rag"
)

var showChunks bool

// chunksCmd splits the document without embedding it; it needs no credential.
var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Split the document and print chunk statistics",
	RunE:  runChunks,
}

func init() {
	chunksCmd.Flags().BoolVar(&showChunks, "show", false, "print every chunk")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(viper.GetViper(), false)
	if err != nil {
		return err
	}
	return printChunks(cmd.Context(), s, cmd.OutOrStdout(), showChunks)
}

func printChunks(ctx context.Context, s Settings, w io.Writer, show bool) error {
	doc, err := loadDocument(ctx, s)
	if err != nil {
		return err
	}
	splitter, err := rag.NewSplitter(s.Splitter.Kind, s.Splitter.ChunkSize, s.Splitter.ChunkOverlap)
	if err != nil {
		return err
	}
	node, err := snowflake.NewNode(chunkNode)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}
	chunks, err := rag.SplitDocument(doc, splitter, node)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return rag.ErrEmptyDocument
	}

	total, shortest, longest := 0, 0, 0
	for i, c := range chunks {
		n := utf8.RuneCountInString(c.Content)
		total += n
		if i == 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
	}

	fmt.Fprintf(w, "document:  %s (%d characters)\n", doc.Name, utf8.RuneCountInString(doc.Content))
	fmt.Fprintf(w, "splitter:  %s size=%d overlap=%d\n", s.Splitter.Kind, s.Splitter.ChunkSize, s.Splitter.ChunkOverlap)
	fmt.Fprintf(w, "chunks:    %d\n", len(chunks))
	fmt.Fprintf(w, "length:    min=%d max=%d avg=%d\n", shortest, longest, total/len(chunks))

	if show {
		for _, c := range chunks {
			fmt.Fprintf(w, "\n--- chunk %d [%d:%d] id=%d\n%s\n", c.Index, c.Start, c.End, c.ID, c.Content)
		}
	}
	return nil
}
