package importer

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// fetch opens the feed at src. Supported schemes: http, https, ftp, file,
// plus bare local paths. The caller closes the reader.
func fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: parse source %q", src)
	}

	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, src)
	case "ftp":
		return fetchFTP(ctx, u)
	case "file":
		return openFile(u.Path)
	case "":
		return openFile(src)
	default:
		return nil, eris.Errorf("importer: unsupported scheme %q", u.Scheme)
	}
}

func fetchHTTP(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, eris.Wrap(err, "importer: create request")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "importer: http fetch")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, eris.Errorf("importer: http fetch: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// ftpReader ties the response to its connection so one Close releases both.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "importer: close ftp response")
	}
	return eris.Wrap(quitErr, "importer: quit ftp connection")
}

func fetchFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return nil, eris.New("importer: empty path in ftp url")
	}

	zap.L().Debug("importer: ftp connect", zap.String("host", host), zap.String("path", u.Path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "importer: ftp dial")
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "importer: ftp login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "importer: ftp retrieve")
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open file")
	}
	return f, nil
}
