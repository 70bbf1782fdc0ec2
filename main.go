/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/crmhub/crm-platform-services/cmd"

func main() {
	cmd.Execute()
}
