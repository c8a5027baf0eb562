package main

import (
	"bitbucket.org/airenas/callnotes/internal/app/callnotes"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	callnotes.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
               ____               __           
  _________ _/ / /  ____  ____  / /____  _____
 / ___/ __ '/ / /  / __ \/ __ \/ __/ _ \/ ___/
/ /__/ /_/ / / /  / / / / /_/ / /_/  __(__  ) 
\___/\__,_/_/_/  /_/ /_/\____/\__/\___/____/  v: %s

%s
________________________________________________________                                                 

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("bitbucket.org/airenas/callnotes"))
}
