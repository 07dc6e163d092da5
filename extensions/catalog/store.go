package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FileStore lists and opens files of a migrations directory
type FileStore interface {
	// List returns the base names of the files in dir
	List(ctx context.Context, dir string) ([]string, error)
	// Open returns a reader of file, callers must close it. A missing file reports an error satisfying os.IsNotExist
	// for the local store.
	Open(ctx context.Context, file string) (io.ReadCloser, error)
}

// LocalFileSystem reads migrations from the local disk
type LocalFileSystem struct {
}

func (fs *LocalFileSystem) List(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (fs *LocalFileSystem) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	return os.Open(file)
}

// FTPFileSystem reads migrations from an ftp server, one connection per call
type FTPFileSystem struct {
	Host        string
	Port        int
	User        string
	Password    string
	ConnTimeout time.Duration
}

func (fs *FTPFileSystem) connect(ctx context.Context) (*ftp.ServerConn, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if fs.ConnTimeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(fs.ConnTimeout))
	}
	conn, err := ftp.Dial(fmt.Sprintf("%s:%d", fs.Host, fs.Port), opts...)
	if err != nil {
		return nil, err
	}
	if err = conn.Login(fs.User, fs.Password); err != nil {
		_ = conn.Quit()
		return nil, err
	}
	return conn, nil
}

func (fs *FTPFileSystem) List(ctx context.Context, dir string) ([]string, error) {
	conn, err := fs.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()
	entries, err := conn.List(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			names = append(names, path.Base(e.Name))
		}
	}
	return names, nil
}

func (fs *FTPFileSystem) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	conn, err := fs.connect(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Retr(file)
	if err != nil {
		_ = conn.Quit()
		return nil, err
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}

// ftpReader closes the data connection before quitting the control connection
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	err := r.resp.Close()
	if er := r.conn.Quit(); err == nil {
		err = er
	}
	return err
}
