package config

type WorkerKeyStruct struct {
	AliasIngestQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AliasIngestQueue: "alias_ingest_queue",
}
