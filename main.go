package main

import "github.com/ndn8144/AdbInstallerApp-sub001/cmd"

func main() {
	cmd.Execute()
}
