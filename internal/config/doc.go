// Package config loads treestore.json, the configuration of the treestore
// command.
//
// # Configuration File Structure
//
//	{
//	  "document": "state.json",
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "server": {
//	    "listen": "localhost:7070",
//	    "watchBuffer": 16
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "treestore"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "writes": false
//	  },
//	  "store": {
//	    "maxPasses": 100
//	  }
//	}
//
// Every field is optional; missing fields take their defaults. A missing
// file is not an error for LoadOrDefault.
package config
