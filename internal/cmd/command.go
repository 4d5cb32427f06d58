package cmd

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/zr/internal/config"
)

type Zr struct {
	Config  flags.Filename `long:"config" description:"the .zr file to load; by default the nearest .zr file up the directory tree is used" value-name:"FILE"`
	Info    Info           `command:"info" alias:"file" description:"print a summary of archives"`
	List    List           `command:"ls" alias:"list" description:"list the entries of an archive"`
	Extract Extract        `command:"extract" alias:"x" alias:"unzip" description:"extract archives"`
}

func NewParser() (*flags.Parser, error) {
	opts := &Zr{}

	p := flags.NewNamedParser("zr", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if err := loadConfig(opts.Config); err != nil {
			return err
		}

		return command.Execute(args)
	}

	return p, nil
}

func loadConfig(name flags.Filename) error {
	if name != "" {
		return config.LoadFile(string(name))
	}

	if _, err := config.Load(context.Background()); err != nil {
		return fmt.Errorf("load config error: %w", err)
	}

	return nil
}
