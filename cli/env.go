package cli

import (
	"strings"

	"github.com/joho/godotenv"

	"github.com/ardnew/orml/pkg"
)

const envFileFlag = "--env-file"

// envFiles returns the values of every --env-file flag in args. The files
// must be known before kong parses args, because loading them may change
// environment variables consulted during parsing.
func envFiles(args []string) []string {
	var files []string

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			break
		}

		if v, ok := strings.CutPrefix(args[i], envFileFlag+"="); ok {
			files = append(files, v)

			continue
		}

		if args[i] == envFileFlag && i+1 < len(args) {
			files = append(files, args[i+1])
			i++
		}
	}

	return files
}

// loadEnv sets environment variables from the given dotenv files. Variables
// already set in the environment are kept.
func loadEnv(files []string) error {
	if len(files) == 0 {
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return pkg.ErrReadInput.Wrap(err).Wrapf("%s", strings.Join(files, ", "))
	}

	return nil
}
