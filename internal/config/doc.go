// Package config loads transit.json, the project configuration.
//
//	{
//	  "production": false,
//	  "compress": true,
//	  "paths": {
//	    "routes": "app/routes",
//	    "generated": ".transit/gen",
//	    "public": "public",
//	    "assets": "dist/manifest.json"
//	  },
//	  "transition": {
//	    "path": "/_transit",
//	    "maxRedirects": 8,
//	    "prefetchTTL": "30s",
//	    "navigationTimeout": "1.5s"
//	  },
//	  "dev": {"port": 3000, "host": "localhost", "watch": true},
//	  "metrics": {"enabled": true, "path": "/metrics"},
//	  "tracing": {"enabled": true}
//	}
//
// Missing fields take the defaults from New. TRANSIT_ENV=production forces
// production mode regardless of the file.
package config
