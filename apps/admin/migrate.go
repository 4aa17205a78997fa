package main

import (
	"context"

	"github.com/trezcool/campus/storage/database/mongodb"
)

var ensureIndexesFunc = mongodb.EnsureIndexes // mockable

func (cli *commandLine) migrate() error {
	if err := ensureIndexesFunc(context.Background(), cli.db); err != nil {
		return err
	}
	logger.Info("indexes are up to date")
	return nil
}
