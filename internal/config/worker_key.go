package config

type WorkerKeyStruct struct {
	QuestionGenerationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	QuestionGenerationQueue: "question_generation_queue",
}
