package main

import (
	"bitbucket.org/airenas/callnotes/internal/app/authsetup"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	authsetup.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
               __  __  
  ____ ___  __/ /_/ /_ 
 / __ '/ / / / __/ __ \
/ /_/ / /_/ / /_/ / / /
\__,_/\__,_/\__/_/ /_/   setup v: %s

%s
________________________________________________________                                                 

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("bitbucket.org/airenas/callnotes"))
}
