package split

import (
	"math"
	"net"
	"testing"

	"occunet/core/ckkswrapper"
	"occunet/nn"
	"occunet/nn/layers"
	"occunet/tensor"
)

func TestHeadRotations(t *testing.T) {
	cases := []struct {
		inDim int
		want  []int
	}{
		{1, nil},
		{5, []int{1, 2, 4}},
		{16, []int{1, 2, 4, 8}},
	}
	for _, tc := range cases {
		got := HeadRotations(tc.inDim)
		if len(got) != len(tc.want) {
			t.Fatalf("HeadRotations(%d) = %v, want %v", tc.inDim, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("HeadRotations(%d) = %v, want %v", tc.inDim, got, tc.want)
			}
		}
	}
}

func TestHeadScoreMatchesPlain(t *testing.T) {
	const inDim = 16

	he := ckkswrapper.NewHeContextWithLogN(12)
	kit := he.GenServerKit(HeadRotations(inDim))
	client := NewHeadClient(he)

	weights := make([]float64, inDim)
	features := make([]float64, inDim)
	for i := 0; i < inDim; i++ {
		weights[i] = 0.05 * float64(i-8)
		features[i] = 0.1 * float64(i%5)
	}
	bias := -0.375
	server := NewHeadServer(kit, weights, bias)

	want := bias
	for i := 0; i < inDim; i++ {
		want += weights[i] * features[i]
	}

	ct, err := client.EncryptFeatures(features)
	if err != nil {
		t.Fatalf("EncryptFeatures: %v", err)
	}
	scored, err := server.Score(ct)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	got, err := client.DecryptLogit(scored)
	if err != nil {
		t.Fatalf("DecryptLogit: %v", err)
	}
	if diff := math.Abs(got - want); diff > 1e-3 {
		t.Errorf("encrypted logit %f, plain %f, diff %e", got, want, diff)
	}
}

func TestHeadServerFromLinear(t *testing.T) {
	const inDim = 8

	he := ckkswrapper.NewHeContextWithLogN(12)
	kit := he.GenServerKit(HeadRotations(inDim))
	client := NewHeadClient(he)

	head := layers.NewLinear(inDim, 1, true)
	server, err := NewHeadServerFromLinear(kit, head)
	if err != nil {
		t.Fatalf("NewHeadServerFromLinear: %v", err)
	}
	if server.InDim() != inDim {
		t.Fatalf("InDim = %d, want %d", server.InDim(), inDim)
	}

	features := []float64{0.2, -0.1, 0.4, 0.0, -0.3, 0.25, 0.1, -0.05}
	x := tensor.New(1, inDim)
	copy(x.Data, features)
	plain, err := head.Forward(x)
	if err != nil {
		t.Fatalf("plain forward: %v", err)
	}

	ct, err := client.EncryptFeatures(features)
	if err != nil {
		t.Fatalf("EncryptFeatures: %v", err)
	}
	scored, err := server.Score(ct)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	got, err := client.DecryptScore(scored)
	if err != nil {
		t.Fatalf("DecryptScore: %v", err)
	}
	want := nn.Sigmoid(plain.At(0, 0))
	if diff := math.Abs(got - want); diff > 1e-3 {
		t.Errorf("encrypted score %f, plain %f, diff %e", got, want, diff)
	}
}

func TestHeadServerFromLinearRejectsWideHead(t *testing.T) {
	he := ckkswrapper.NewHeContextWithLogN(12)
	kit := he.GenServerKit(nil)

	if _, err := NewHeadServerFromLinear(kit, layers.NewLinear(4, 2, false)); err == nil {
		t.Fatal("expected an error for a multi-output head")
	}
}

func TestServeRoundTrip(t *testing.T) {
	const inDim = 8

	he := ckkswrapper.NewHeContextWithLogN(12)
	kit := he.GenServerKit(HeadRotations(inDim))
	client := NewHeadClient(he)

	weights := []float64{0.1, 0.2, -0.3, 0.05, 0.0, -0.15, 0.4, 0.25}
	bias := 0.5
	server := NewHeadServer(kit, weights, bias)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	serveErr := make(chan error, 1)
	go func() {
		defer serverConn.Close()
		serveErr <- server.Serve(NewProtocol(serverConn, serverConn))
	}()

	proto := NewProtocol(clientConn, clientConn)
	features := []float64{1, 0.5, 0.25, 0, -0.5, 1, 0.1, -0.1}
	got, err := client.ScoreRemote(proto, 7, features)
	if err != nil {
		t.Fatalf("ScoreRemote: %v", err)
	}
	if err := proto.SendDone(); err != nil {
		t.Fatalf("SendDone: %v", err)
	}
	if err := <-serveErr; err != nil {
		t.Fatalf("Serve: %v", err)
	}

	logit := bias
	for i := range weights {
		logit += weights[i] * features[i]
	}
	want := nn.Sigmoid(logit)
	if diff := math.Abs(got - want); diff > 1e-3 {
		t.Errorf("remote score %f, plain %f, diff %e", got, want, diff)
	}
}
