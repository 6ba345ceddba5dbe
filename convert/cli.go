package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bburda42dot/diag-converter-sub001/compression"
	"github.com/bburda42dot/diag-converter-sub001/ir"
	"github.com/bburda42dot/diag-converter-sub001/state"
	"github.com/bburda42dot/diag-converter-sub001/yamlcfg"
)

// Run is the convert subcommand's Action: it reads --input/--output,
// optional --audience and --compression, and exercises Convert. Flags not
// given their own CLI default fall back to the process configuration.
func Run(ctx context.Context, cmd *cli.Command) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")
	env.Overwrite = cmd.Bool("overwrite")

	src := cmd.String("input")
	if len(src) == 0 {
		return errors.New("no --input source has been specified")
	}
	dst := cmd.String("output")
	if len(dst) == 0 {
		return errors.New("no --output destination has been specified")
	}

	audience := cmd.String("audience")
	if len(audience) == 0 {
		audience = env.Cfg.Conversion.DefaultAudience
	}

	algName := cmd.String("compression")
	if len(algName) == 0 {
		algName = env.Cfg.Conversion.DefaultCompression
	}
	alg, err := compression.ParseAlgorithm(algName)
	if err != nil {
		return fmt.Errorf("unknown --compression value: %w", err)
	}

	log.Info("Conversion starting", zap.String("from", src), zap.String("to", dst), zap.String("audience", audience))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic", zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
			return
		}
		log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return Convert(src, dst, Options{
		Audience:  audience,
		Overwrite: env.Overwrite,
		Write: WriteOptions{
			Compression: alg,
			Sign:        env.Cfg.Conversion.SignOutput,
		},
	})
}

// Info is the info subcommand's Action: it parses the single positional
// FILE argument and prints the summary documented in spec.md §6.
func Info(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("info")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input file has been specified")
	}

	format, err := DetectFormat(src)
	if err != nil {
		return err
	}
	db, err := ParseFileAs(src, format)
	if err != nil {
		return fmt.Errorf("unable to parse %s: %w", src, err)
	}

	var base *ir.Variant
	for i := range db.Variants {
		if db.Variants[i].IsBaseVariant {
			base = &db.Variants[i]
			break
		}
	}

	fmt.Fprintf(os.Stdout, "File: %s\n", src)
	fmt.Fprintf(os.Stdout, "Format: %s\n", format)
	fmt.Fprintf(os.Stdout, "ECU: %s\n", db.EcuName)
	fmt.Fprintf(os.Stdout, "Version: %s\n", db.Version)
	fmt.Fprintf(os.Stdout, "Revision: %s\n", db.Revision)

	names := make([]string, 0, len(db.Variants))
	for _, v := range db.Variants {
		names = append(names, v.DiagLayer.ShortName)
	}
	fmt.Fprintf(os.Stdout, "Variants: %d (%s)\n", len(db.Variants), joinNames(names))

	if base != nil {
		fmt.Fprintf(os.Stdout, "Services: %d\n", len(base.DiagLayer.DiagServices))
		if n := len(base.DiagLayer.ComParamRefs); n > 0 {
			fmt.Fprintf(os.Stdout, "ComParams: %d\n", n)
		}
	} else {
		fmt.Fprintf(os.Stdout, "Services: 0\n")
	}

	fmt.Fprintf(os.Stdout, "DTCs: %d\n", len(db.Dtcs))

	if base != nil {
		if n := len(base.DiagLayer.StateCharts); n > 0 {
			fmt.Fprintf(os.Stdout, "StateCharts: %d\n", n)
		}
	}

	log.Debug("Info printed", zap.String("file", src))
	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// Validate is the validate subcommand's Action: it parses the single
// positional FILE argument, runs structural (and, for YAML, schema)
// validation, and returns a non-nil error iff any error was found.
// --quiet suppresses per-error printing; --summary prints only the count.
func Validate(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("validate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input file has been specified")
	}
	quiet := cmd.Bool("quiet")
	summary := cmd.Bool("summary")

	format, err := DetectFormat(src)
	if err != nil {
		return err
	}

	var errs []string
	if format == FormatYaml {
		data, rerr := os.ReadFile(src)
		if rerr != nil {
			return fmt.Errorf("unable to read %s: %w", src, rerr)
		}
		if issues, verr := yamlcfg.ValidateSchema(data); verr != nil {
			return fmt.Errorf("unable to validate schema: %w", verr)
		} else {
			for _, issue := range issues {
				errs = append(errs, "schema: "+issue)
			}
		}
	}

	db, perr := ParseFileAs(src, format)
	if perr != nil {
		errs = append(errs, perr.Error())
	} else if verr := ir.ValidateDatabase(db); verr != nil {
		for _, e := range multierr.Errors(verr) {
			errs = append(errs, e.Error())
		}
	}

	switch {
	case summary:
		fmt.Fprintf(os.Stdout, "%d error(s)\n", len(errs))
	case !quiet:
		for _, e := range errs {
			fmt.Fprintln(os.Stdout, e)
		}
	}

	log.Debug("Validation completed", zap.String("file", src), zap.Int("errors", len(errs)))
	if len(errs) > 0 {
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}
	return nil
}
