package kss

// S3Client exposes the client interface of the S3 driver to tests
type S3Client = s3Client

// NewS3WithClient exposes newS3WithClient to tests
var NewS3WithClient = newS3WithClient
