package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"

	"github.com/pobal-network/pobal/internal/domain"
)

func init() {
	proofCmd.AddCommand(proofHashCmd)
	rootCmd.AddCommand(proofCmd)
}

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Proof utilities",
}

var proofHashCmd = &cobra.Command{
	Use:   "hash FILE",
	Short: "Print the BLAKE2b-256 proof hash of a file ('-' for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		h, err := hashProof(r)
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

// hashProof digests an artifact into a proof hash.
func hashProof(r io.Reader) (domain.Hash, error) {
	d, err := blake2b.New256(nil)
	if err != nil {
		return domain.Hash{}, err
	}
	if _, err := io.Copy(d, r); err != nil {
		return domain.Hash{}, fmt.Errorf("read artifact: %w", err)
	}
	var h domain.Hash
	copy(h[:], d.Sum(nil))
	return h, nil
}
