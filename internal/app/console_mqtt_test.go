package app

import "testing"

func TestFormatParamsMessage(t *testing.T) {
	cases := []struct {
		topic   string
		payload string
		want    string
		wantErr bool
	}{
		{"node/n1/params/local", `{"Accel X":{"Temperature":0.25}}`, "[n1] Accel X.Temperature=+0.2500", false},
		{"node/n1/params/local", `{"Accel Y":{"Temperature":-1}}`, "[n1] Accel Y.Temperature=-1.0000", false},
		{"node/n1/params/local", `{"Accel X":{"Name":"Accel X"}}`, "[n1] Accel X.Name=Accel X", false},
		{"node/n2/params/local", ``, "[n2] cleared", false},
		{"node/n1/params/local", `not json`, "", true},
	}

	for _, tc := range cases {
		got, err := formatParamsMessage(tc.topic, []byte(tc.payload))
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: unexpected error %v", tc.payload, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.payload, tc.want, got)
		}
	}
}
