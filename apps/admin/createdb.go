package main

import (
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/storage/database"
)

var createDBFunc = database.CreateIfNotExist // mockable

func (cli *commandLine) createDB() error {
	return createDBFunc(core.Conf)
}
