package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/df07/go-progressive-photonmapper/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	scenesDir := flag.String("scenes", "scenes", "Directory of JSON scene files")
	textureDir := flag.String("textures", "textures", "Texture directory for the default scene")
	flag.Parse()

	webServer := server.NewServer(*port, *scenesDir, *textureDir)

	log.Printf("Progressive Photon Mapper Web Server")
	log.Printf("Visit http://localhost:%d to start rendering", *port)

	if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
