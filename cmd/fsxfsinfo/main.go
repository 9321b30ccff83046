// fsxfsinfo opens a disk image or block device, mounts the XFS volume at a
// given byte offset, and prints its superblock summary and directory tree.
// It never writes to the image and never invokes the kernel's XFS driver.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forensicfs/go-fsxfs/converter"
	"github.com/forensicfs/go-fsxfs/diskfs"
	"github.com/forensicfs/go-fsxfs/filesystem/xfs"
)

const (
	exitOK = iota
	exitUsage
	exitIO
	exitUnsupported
)

var (
	offset  int64
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:     "fsxfsinfo <image>",
	Short:   "Print XFS superblock and directory tree from a disk image",
	Version: "0.1.0-dev",
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func init() {
	rootCmd.Flags().Int64VarP(&offset, "offset", "o", 0, "volume offset in bytes within the image")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "recursively walk and print the full directory tree")
	rootCmd.Flags().BoolP("version", "V", false, "print the version and exit")

	viper.SetEnvPrefix("FSXFS")
	viper.AutomaticEnv()
	if viper.IsSet("offset") && !rootCmd.Flags().Changed("offset") {
		offset = viper.GetInt64("offset")
	}
}

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fsxfsinfo: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	image := args[0]
	d, err := diskfs.Open(image)
	if err != nil {
		return &cliError{code: exitIO, err: err}
	}
	defer d.Close()

	fsys, err := d.GetFilesystem(offset, xfs.WithLogger(log.WithField("image", image)))
	if err != nil {
		return &cliError{code: exitUnsupported, err: err}
	}

	printSuperblock(fsys, image, offset)

	if verbose {
		return walkTree(fsys)
	}
	return listRoot(fsys)
}

func printSuperblock(fsys *xfs.FS, image string, offset int64) {
	fmt.Printf("image:  %s\n", image)
	fmt.Printf("offset: %d\n", offset)
	fmt.Printf("label:  %q\n", fsys.Label())
	fmt.Printf("type:   %v\n", fsys.Type())
}

func listRoot(fsys *xfs.FS) error {
	entries, err := fsys.ReadDir("/")
	if err != nil {
		return &cliError{code: exitIO, err: err}
	}
	for _, e := range entries {
		fmt.Printf("%s %10d %s\n", e.Mode(), e.Size(), e.Name())
	}
	return nil
}

func walkTree(fsys *xfs.FS) error {
	err := fs.WalkDir(converter.FS(fsys), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%s %10d /%s\n", info.Mode(), info.Size(), path)
		return nil
	})
	if err != nil {
		return &cliError{code: exitIO, err: err}
	}
	return nil
}

// cliError pairs an error with the exit code main() should use, so RunE can
// return a single error value while still distinguishing usage/IO/format
// failures per the exit-code contract.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	if kind, ok := xfs.KindOf(err); ok {
		switch kind {
		case xfs.KindSignatureMismatch, xfs.KindUnsupportedVersion, xfs.KindUnsupportedValue:
			return exitUnsupported
		case xfs.KindIOError:
			return exitIO
		}
	}
	return exitUsage
}
