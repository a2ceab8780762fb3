package config

type WorkerKeyStruct struct {
	AdmissionAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AdmissionAuditQueue: "admission_audit_queue",
}
