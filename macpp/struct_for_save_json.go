package macpp

type checkpointJSON struct {
	CheckpointHeader
	Rows []Row `json:"rows"`
}

type matrixJSON struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type resultJSON struct {
	RunID      string      `json:"run_id"`
	Iters      int         `json:"iters"`
	Burn       int         `json:"burn"`
	Thin       int         `json:"thin"`
	LambdaC    *matrixJSON `json:"lambda_c,omitempty"`
	Mu0        *matrixJSON `json:"mu0"`
	H          *matrixJSON `json:"h"`
	LambdaO    *matrixJSON `json:"lambda_o,omitempty"`
	Acceptance []float64   `json:"acceptance"`
}
