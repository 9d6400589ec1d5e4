package main

import (
	"github.com/busybox42/smtpwire/cmd/smtpwire/commands"
)

func main() {
	commands.Execute()
}
