package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	curriculumApp "github.com/tiny-nested-learning/hope-go/internal/application/curriculum"
)

var (
	encodeCurriculum string
	encodeSeqLen     int
	encodeJSON       bool
)

type encodedSentence struct {
	Task     string `json:"task"`
	Sentence string `json:"sentence"`
	Inputs   []int  `json:"inputs"`
	Targets  []int  `json:"targets"`
}

type encodeOutput struct {
	SeqLen     int               `json:"seqLen"`
	Vocabulary []string          `json:"vocabulary"`
	Sentences  []encodedSentence `json:"sentences"`
}

// EncodeCmd prints how a curriculum is tokenized and encoded.
var EncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Show the vocabulary and encoded sentences of a curriculum",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := loadDefinition(encodeCurriculum)
		if err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return err
		}

		vocab := curriculumApp.BuildVocabulary(def)
		seqLen := encodeSeqLen
		if seqLen <= 0 {
			seqLen = curriculumApp.MaxTokens(def)
		}

		out := encodeOutput{SeqLen: seqLen, Vocabulary: vocab.Tokens()}
		for _, task := range def {
			for _, sentence := range task.Sentences {
				x, y, err := curriculumApp.EncodeSentence(sentence, vocab, seqLen)
				if err != nil {
					return err
				}
				out.Sentences = append(out.Sentences, encodedSentence{
					Task:     task.Name,
					Sentence: sentence,
					Inputs:   x,
					Targets:  y,
				})
			}
		}

		if encodeJSON {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Vocabulary (%d tokens): %s\n", len(out.Vocabulary), strings.Join(out.Vocabulary, " "))
		fmt.Printf("Sequence length: %d\n\n", seqLen)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tINPUTS\tTARGETS")
		for _, s := range out.Sentences {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Task,
				curriculumApp.Decode(s.Inputs, vocab),
				curriculumApp.Decode(s.Targets, vocab))
		}
		return w.Flush()
	},
}

func init() {
	EncodeCmd.Flags().StringVarP(&encodeCurriculum, "curriculum", "c", "", "Curriculum JSON file (default: built-in story)")
	EncodeCmd.Flags().IntVar(&encodeSeqLen, "seq-len", 0, "Force the sequence length (0 derives it from the curriculum)")
	EncodeCmd.Flags().BoolVar(&encodeJSON, "json", false, "Print ids as JSON")
}
