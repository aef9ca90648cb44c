package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"songdrop/cmd"
)

func main() {
	asciiArt := `
                          _
 ___  ___  _ __   __ _ __| |_ __ ___  _ __
/ __|/ _ \| '_ \ / _` + "`" + ` / _` + "`" + ` | '__/ _ \| '_ \
\__ \ (_) | | | | (_| | (_| | | | (_) | |_) |
|___/\___/|_| |_|\__, |\__,_|_|  \___/| .__/
                 |___/                |_|
`

	var (
		serve      bool
		port       int
		importMode bool
		force      bool
	)

	flag.BoolVar(&serve, "serve", false, "Run the LAN upload listener and control API")
	flag.IntVar(&port, "port", 8080, "Port for the upload listener")
	flag.BoolVar(&importMode, "import", false, "Import local files into the library")
	flag.BoolVar(&force, "force", false, "Bypass the duplicate guard when importing")
	flag.Parse()

	switch {
	case serve:
		fmt.Print(asciiArt)
		cmd.StartServer(port)

	case importMode:
		if flag.NArg() == 0 {
			log.Fatalf("No files to import: songdrop -import [-force] file...")
		}
		cmd.RunImport(flag.Args(), force)

	default:
		fmt.Print(asciiArt)
		flag.Usage()
		os.Exit(2)
	}
}
