package callback

// successPageHTML is shown in the browser once the redirect has been
// captured. The window closes itself where the browser allows it.
const successPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Authentication Successful</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f3f4f6;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
        }
        h1 { color: #1f2937; font-size: 1.5rem; }
        p { color: #6b7280; }
        .icon { font-size: 2.5rem; color: #10b981; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#10003;</div>
        <h1>Authentication Successful</h1>
        <p>You can close this window and return to the application.</p>
    </div>
    <script>setTimeout(function () { window.close(); }, 3000);</script>
</body>
</html>`

// errorPageHTML is shown when the provider redirected with an error. The
// %s placeholder receives the provider's error code.
const errorPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Authentication Failed</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f3f4f6;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
        }
        h1 { color: #1f2937; font-size: 1.5rem; }
        p { color: #6b7280; }
        .icon { font-size: 2.5rem; color: #ef4444; }
        code { background: #f3f4f6; padding: 0.2rem 0.4rem; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#10007;</div>
        <h1>Authentication Failed</h1>
        <p>The identity provider reported <code>%s</code>. You can close this window.</p>
    </div>
</body>
</html>`
