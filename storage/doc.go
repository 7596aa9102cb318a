// Package storage abstracts where saved images are written.
//
// Backends register themselves with RegisterFactory and are selected by
// Config.Provider:
//
//   - storage/local: files under a base directory, served by the HTTP API
//   - storage/s3: Amazon S3 and S3-compatible services
//
// Configuration:
//
//	storage:
//	  provider: s3
//	  bucket: phrame-images
//	  region: eu-west-1
package storage
