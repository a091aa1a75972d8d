package main

import (
	_ "github.com/go-sql-driver/mysql"

	"Osprey/Constants"
	"Osprey/FiberConfig"
	"Osprey/Models"
)

func main() {
	Constants.Load()
	Models.Connect(Constants.DBDriver, Constants.DBDSN)
	FiberConfig.FiberConfig()
}
