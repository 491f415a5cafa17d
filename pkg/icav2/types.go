package icav2

// Project is the subset of an ICAv2 project the client reads.
type Project struct {
	ID                              string            `json:"id"`
	Name                            string            `json:"name"`
	SelfManagedStorageConfiguration *StorageConfigRef `json:"selfManagedStorageConfiguration,omitempty"`
}

// StorageConfigRef references a storage configuration.
type StorageConfigRef struct {
	ID string `json:"id"`
}

// StorageConfiguration is a bring-your-own-bucket storage configuration.
type StorageConfiguration struct {
	ID                          string                      `json:"id"`
	Region                      string                      `json:"region,omitempty"`
	StorageConfigurationDetails StorageConfigurationDetails `json:"storageConfigurationDetails"`
}

// StorageConfigurationDetails holds the provider specific settings.
type StorageConfigurationDetails struct {
	AwsS3 *AwsS3Details `json:"awsS3,omitempty"`
}

// AwsS3Details locates the bucket and key prefix of a configuration.
type AwsS3Details struct {
	BucketName string `json:"bucketName"`
	KeyPrefix  string `json:"keyPrefix"`
}

// Prefix returns the configuration's root as an s3:// URI ending in "/".
func (s StorageConfiguration) Prefix() string {
	if s.StorageConfigurationDetails.AwsS3 == nil {
		return ""
	}
	return S3Prefix(s.StorageConfigurationDetails.AwsS3.BucketName, s.StorageConfigurationDetails.AwsS3.KeyPrefix)
}

// ProjectPipeline is a pipeline linked to a project.
type ProjectPipeline struct {
	Pipeline Pipeline `json:"pipeline"`
}

// Pipeline identifies a pipeline.
type Pipeline struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// ProjectData is a data object within a project.
type ProjectData struct {
	ProjectID string `json:"projectId"`
	Data      Data   `json:"data"`
}

// Data identifies a file or folder.
type Data struct {
	ID      string      `json:"id"`
	Details DataDetails `json:"details"`
}

// DataDetails carries the location of a data object.
type DataDetails struct {
	Path     string `json:"path"`
	DataType string `json:"dataType"`
}

type itemList[T any] struct {
	Items []T `json:"items"`
}
