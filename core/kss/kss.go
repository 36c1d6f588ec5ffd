// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package kss provides the key storage service: it stores large files like
// product images outside of the database. There are two drivers, a local
// file system and AWS S3. Both implement baas.BlobStore.
package kss

import (
	"fmt"
	"strings"
)

// DriverType represents the different type of KSS Drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation of the KSS service
const DriverTypeLocal DriverType = "Local"

// DriverTypeAWSS3 is the AWS S3 implementation of the KSS service
const DriverTypeAWSS3 DriverType = "AWSS3"

// LocalConfiguration contains the configuration for the local filesystem KSS service
type LocalConfiguration struct {
	BasePath string
}

// S3Configuration contains the configuration for the AWS S3 KSS service
type S3Configuration struct {
	AccessID      string
	AccessKey     string
	AWSBucketName string
	AWSRegion     string
	KeyPrefix     string
	// Endpoint overrides the AWS endpoint, for S3 compatible stores
	Endpoint string
	// PublicURL is the base URL under which the bucket is publicly readable.
	// Without it, URL returns pre-signed GET URLs.
	PublicURL string
}

// ValidateKey checks that key can be used as a blob key. Keys are slash
// separated relative paths without empty or dot segments.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key '%s'", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("invalid key '%s'", key)
		}
	}
	return nil
}
